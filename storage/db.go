package storage

import (
	"fmt"
	"time"

	"mailbutler/utils"
)

// InitMailbox builds the mailbox. With a snapshot path the state is restored
// from (and saved to) a BoltDB file; otherwise it lives in memory only. Mock
// data is loaded when seed is set and there is nothing to restore. The
// returned close function releases the snapshot file.
func InitMailbox(snapshotPath string, seed bool, opts ...Option) (*Mailbox, func() error, error) {
	closeFn := func() error { return nil }

	var restored *Snapshot
	if snapshotPath != "" {
		snapshots, err := OpenBoltSnapshots(snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		closeFn = snapshots.Close

		restored, err = snapshots.Load()
		if err != nil {
			snapshots.Close()
			return nil, nil, err
		}
		opts = append(opts, WithSnapshots(snapshots))
	}

	mailbox := NewMailbox(opts...)

	switch {
	case restored != nil:
		mailbox.Restore(restored)
		utils.Log.Info("Restored mailbox snapshot: %d emails, %d templates, %d signatures",
			len(restored.Emails), len(restored.Templates), len(restored.Signatures))
	case seed:
		mock, err := MockSnapshot(time.Now())
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("failed to load mock data: %w", err)
		}
		mailbox.Restore(mock)
		utils.Log.Info("Loaded mock data: %d emails", len(mock.Emails))
	}

	return mailbox, closeFn, nil
}
