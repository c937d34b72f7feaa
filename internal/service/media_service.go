package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"devfolio/internal/featureflags"
	"devfolio/internal/models"
	"devfolio/internal/ogimage"
	"devfolio/internal/storage"
	"devfolio/internal/validation"
)

const (
	DefaultMaxUploadBytes int64 = 10 << 20
	maxProxyBytes         int64 = 15 << 20
	proxyTimeout                = 10 * time.Second
)

// UploadKinds are the storage folders an account may upload into.
var UploadKinds = map[string]struct{}{
	"avatars":  {},
	"badges":   {},
	"banners":  {},
	"projects": {},
}

var ErrPrivateAddress = errors.New("destination address is not public")

type UploadInput struct {
	AccountID   string
	Kind        string
	FileName    string
	ContentType string
	Content     []byte
}

// ProxiedImage is an upstream image relayed to the client.
type ProxiedImage struct {
	Body        []byte
	ContentType string
}

// MediaService handles image uploads and outbound fetches of third-party pages and images.
type MediaService struct {
	images         storage.ImageStorage
	flags          *featureflags.Manager
	finder         *ogimage.Finder
	client         *http.Client
	maxUploadBytes int64
}

// MediaOptions configures NewMediaService.
type MediaOptions struct {
	MaxUploadBytes int64
	// AllowPrivateHosts lets outbound fetches reach loopback and private networks.
	AllowPrivateHosts bool
}

func NewMediaService(images storage.ImageStorage, flags *featureflags.Manager, opts MediaOptions) *MediaService {
	if images == nil {
		images = storage.NewUnconfigured()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	transport := outboundTransport(opts.AllowPrivateHosts)
	finder := ogimage.NewFinder()
	finder.Transport = transport

	return &MediaService{
		images:         images,
		flags:          flags,
		finder:         finder,
		client:         &http.Client{Timeout: proxyTimeout, Transport: transport},
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// Upload stores an image under <kind>/<accountID> and returns its URL.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (string, error) {
	if err := s.flags.Require(featureflags.Uploads, in.AccountID); err != nil {
		return "", err
	}
	if _, ok := UploadKinds[in.Kind]; !ok {
		return "", models.NewValidationError("Invalid upload path")
	}
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file provided")
	}
	if int64(len(in.Content)) > s.maxUploadBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %d MB)", s.maxUploadBytes>>20))
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return "", models.NewValidationError("Only image files are allowed")
	}
	if sniffed := http.DetectContentType(in.Content); !strings.HasPrefix(sniffed, "image/") {
		return "", models.NewValidationError("File content is not an image")
	}

	folder := in.Kind + "/" + in.AccountID
	return s.images.Upload(ctx, bytes.NewReader(in.Content), folder, in.FileName)
}

// ProxyImage fetches an image from a public http(s) URL.
func (s *MediaService) ProxyImage(ctx context.Context, rawURL string) (*ProxiedImage, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, models.NewValidationError("URL parameter is required")
	}
	u, err := validation.HTTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, models.NewValidationError("Invalid URL")
	}
	req.Header.Set("User-Agent", ogimage.DefaultUserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, outboundError("Failed to fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewUpstreamError(fmt.Sprintf("Failed to fetch image: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBytes+1))
	if err != nil {
		return nil, outboundError("Failed to read image", err)
	}
	if int64(len(body)) > maxProxyBytes {
		return nil, models.NewUpstreamError("Image too large", nil)
	}

	contentType, err := proxiedContentType(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	return &ProxiedImage{Body: body, ContentType: contentType}, nil
}

// proxiedContentType accepts raster image types only. SVG is refused since it
// can carry script. An untyped response is sniffed and falls back to JPEG.
func proxiedContentType(declared string, body []byte) (string, error) {
	if strings.TrimSpace(declared) == "" {
		if sniffed := http.DetectContentType(body); strings.HasPrefix(sniffed, "image/") && sniffed != "image/svg+xml" {
			return sniffed, nil
		}
		return "image/jpeg", nil
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.HasPrefix(mediaType, "image/") || mediaType == "image/svg+xml" {
		return "", models.NewUpstreamError("URL did not return an image", nil)
	}
	return declared, nil
}

// FindOGImage returns the preview image a page advertises, or nil.
func (s *MediaService) FindOGImage(ctx context.Context, pageURL string) (*string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, models.NewValidationError("URL parameter is required")
	}
	u, err := validation.HTTPURL(pageURL)
	if err != nil {
		return nil, err
	}
	image, err := s.finder.Find(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if image == "" {
		return nil, nil
	}
	return &image, nil
}

func outboundError(message string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewTimeoutError("Request timeout", err)
	}
	if errors.Is(err, ErrPrivateAddress) {
		return models.NewValidationError("URL must point to a public host")
	}
	return models.NewUpstreamError(message, err)
}

// outboundTransport refuses connections to non-public addresses unless allowed.
// The check runs on the resolved address, so DNS names pointing inward are caught too.
func outboundTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			ip := net.ParseIP(host)
			if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
				ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
				return ErrPrivateAddress
			}
			return nil
		}
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	// A proxy would make the dialer see only the proxy's address.
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}
