package tracking

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"mailbutler/models"

	"golang.org/x/net/html"
)

var plainURL = regexp.MustCompile(`https?://[^\s<>"']+`)

// Rewriter produces tracked copies of email bodies
type Rewriter struct {
	baseURL string
	signer  *Signer
}

// NewRewriter creates a rewriter whose links point at baseURL
func NewRewriter(baseURL string, signer *Signer) *Rewriter {
	return &Rewriter{baseURL: strings.TrimRight(baseURL, "/"), signer: signer}
}

// OpenURL returns the open pixel URL for a recipient
func (r *Rewriter) OpenURL(emailID, recipient string) (string, error) {
	token, err := r.signer.Sign(KindOpen, emailID, recipient, "")
	if err != nil {
		return "", err
	}
	return r.baseURL + "/t/open/" + url.PathEscape(token), nil
}

// ClickURL returns the redirect URL for a link clicked by a recipient
func (r *Rewriter) ClickURL(emailID, recipient, target string) (string, error) {
	token, err := r.signer.Sign(KindClick, emailID, recipient, target)
	if err != nil {
		return "", err
	}
	return r.baseURL + "/t/click/" + url.PathEscape(token), nil
}

// TrackedBody returns the body of email as sent to recipient. Rich bodies get
// their links rewritten and an open pixel appended; plain bodies get their
// URLs rewritten.
func (r *Rewriter) TrackedBody(email *models.Email, recipient string) (string, error) {
	if email.IsHTML {
		return r.rewriteHTML(email.ID, recipient, email.Body)
	}
	return r.rewriteText(email.ID, recipient, email.Body)
}

func (r *Rewriter) rewriteHTML(emailID, recipient, body string) (string, error) {
	var out bytes.Buffer
	z := html.NewTokenizer(strings.NewReader(body))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("failed to parse body: %w", err)
			}
			break
		}

		if tt != html.StartTagToken {
			out.Write(z.Raw())
			continue
		}

		token := z.Token()
		if token.Data != "a" {
			out.WriteString(token.String())
			continue
		}

		for i, attr := range token.Attr {
			if attr.Key != "href" || !isTrackable(attr.Val) {
				continue
			}
			clickURL, err := r.ClickURL(emailID, recipient, attr.Val)
			if err != nil {
				return "", err
			}
			token.Attr[i].Val = clickURL
		}
		out.WriteString(token.String())
	}

	openURL, err := r.OpenURL(emailID, recipient)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&out, `<img src="%s" width="1" height="1" alt="" style="display:none">`, html.EscapeString(openURL))

	return out.String(), nil
}

func (r *Rewriter) rewriteText(emailID, recipient, body string) (string, error) {
	var signErr error
	rewritten := plainURL.ReplaceAllStringFunc(body, func(match string) string {
		link, trail := splitTrailing(match)
		clickURL, err := r.ClickURL(emailID, recipient, link)
		if err != nil {
			signErr = err
			return match
		}
		return clickURL + trail
	})
	if signErr != nil {
		return "", signErr
	}
	return rewritten, nil
}

// splitTrailing separates sentence punctuation and an unbalanced closing
// parenthesis from the end of a URL found in plain text
func splitTrailing(match string) (string, string) {
	end := len(match)
	for end > 0 {
		c := match[end-1]
		if strings.IndexByte(".,;:!?", c) >= 0 {
			end--
			continue
		}
		if c == ')' && strings.Count(match[:end], "(") < strings.Count(match[:end], ")") {
			end--
			continue
		}
		break
	}
	return match[:end], match[end:]
}

func isTrackable(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
