package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads course media. Implementations return delivery URLs.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error)
	UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error)
	DeleteByURL(ctx context.Context, url string) error
}

type UploadResult struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublicID     string `json:"public_id"`
	DurationSecs int    `json:"duration_seconds,omitempty"`
}

const (
	ThumbWidth = 400

	imageEager = "q_auto,f_auto,w_1280,h_720,c_fill"
	videoEager = "q_auto,f_auto,w_1280"
)

// BuildOptimizedImageURL returns a delivery URL with resize transformations.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ThumbWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

// PublicIDFromURL extracts the public ID and resource type from a Cloudinary
// delivery URL. ok is false for URLs Cloudinary did not issue.
func PublicIDFromURL(url string) (publicID, resourceType string, ok bool) {
	i := strings.Index(url, "res.cloudinary.com/")
	if i < 0 {
		return "", "", false
	}
	parts := strings.Split(url[i+len("res.cloudinary.com/"):], "/")
	// <cloud>/<resource>/upload/[transformations/][v123/]<public id>.<ext>
	if len(parts) < 4 || parts[2] != "upload" {
		return "", "", false
	}
	resourceType = parts[1]
	rest := parts[3:]
	for len(rest) > 1 && (strings.Contains(rest[0], ",") || isTransformation(rest[0])) {
		rest = rest[1:]
	}
	if len(rest) > 1 && len(rest[0]) > 1 && rest[0][0] == 'v' && isDigits(rest[0][1:]) {
		rest = rest[1:]
	}
	publicID = strings.Join(rest, "/")
	if dot := strings.LastIndex(publicID, "."); dot > strings.LastIndex(publicID, "/") {
		publicID = publicID[:dot]
	}
	return publicID, resourceType, publicID != ""
}

func isTransformation(seg string) bool {
	for _, p := range []string{"q_", "f_", "w_", "h_", "c_", "so_"} {
		if strings.HasPrefix(seg, p) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

var eagerAsyncFalse = false

func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	out := &UploadResult{URL: result.SecureURL, PublicID: result.PublicID}
	if len(result.Eager) > 0 {
		out.URL = result.Eager[0].SecureURL
	}
	out.ThumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	return out, nil
}

func (c *clientImpl) UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (*UploadResult, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "video",
		Eager:        videoEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return &UploadResult{
		URL:          result.SecureURL,
		ThumbnailURL: fmt.Sprintf("https://res.cloudinary.com/%s/video/upload/so_0/%s.jpg", c.cloudName, result.PublicID),
		PublicID:     result.PublicID,
	}, nil
}

// DeleteByURL destroys the asset behind a Cloudinary URL. Foreign URLs are ignored.
func (c *clientImpl) DeleteByURL(ctx context.Context, url string) error {
	publicID, resourceType, ok := PublicIDFromURL(url)
	if !ok {
		return nil
	}
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	return err
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{cloudName: cloudName, uploader: up}, nil
}
