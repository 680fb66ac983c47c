// Package filehost builds time-limited download links to files kept by the file-hosting service.
// A link is signed with HMAC-SHA256 over "{publicId}:{filename}:{expiresUnix}".
package filehost

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
)

const DefaultFilename = "document"

var (
	nowFunc = time.Now // mockable

	ErrNoSecret      = errors.New("file signing secret is not configured")
	ErrMissingID     = errors.New("publicId is required")
	ErrInvalidSig    = errors.New("invalid signature")
	ErrLinkExpired   = errors.New("download link has expired")
	ErrInvalidExpiry = errors.New("invalid expiry")
)

type Signer struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
}

func NewSigner(conf *core.Config) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(conf.Files.BaseURL, "/"),
		secret:  []byte(conf.Files.Secret),
		ttl:     conf.Files.DownloadTTL,
	}
}

// TTL is the default validity of the links built by SignedURL.
func (s *Signer) TTL() time.Duration { return s.ttl }

// SignedURL returns a download link to publicID valid for ttl. The file is served as an attachment named filename.
func (s *Signer) SignedURL(publicID, filename string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	publicID = strings.Trim(strings.TrimSpace(publicID), "/")
	if publicID == "" {
		return "", ErrMissingID
	}
	if filename = strings.TrimSpace(filename); filename == "" {
		filename = DefaultFilename
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	expires := nowFunc().Add(ttl).Unix()
	u, err := url.Parse(s.baseURL + "/" + publicID)
	if err != nil {
		return "", errors.Wrap(err, "parsing file url")
	}
	u.RawQuery = url.Values{
		"filename": {filename},
		"expires":  {strconv.FormatInt(expires, 10)},
		"sig":      {s.sign(publicID, filename, expires)},
	}.Encode()
	return u.String(), nil
}

// Verify checks the signature and expiry of a link built by SignedURL.
func (s *Signer) Verify(publicID, filename, expires, sig string) error {
	if len(s.secret) == 0 {
		return ErrNoSecret
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidExpiry
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(publicID, filename, exp))) {
		return ErrInvalidSig
	}
	if nowFunc().Unix() > exp {
		return ErrLinkExpired
	}
	return nil
}

func (s *Signer) sign(publicID, filename string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(publicID + ":" + filename + ":" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
