package services

import (
	"bytes"
	stdctx "context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"
	"time"

	"github.com/Calstins/teensha/engine"
	"github.com/alphabatem/common/context"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MediaService stores submission attachments in MinIO. Still images are
// downscaled and re-encoded as WebP before upload.
type MediaService struct {
	context.DefaultService

	minioSvc *MinIOService
	maxDim   int
	quality  float32
}

const MEDIA_SVC = "media_svc"

var _ engine.ObjectStorage = (*MediaService)(nil)

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *context.Context) error {
	svc.maxDim = 1600
	if v, err := strconv.Atoi(os.Getenv("IMAGE_MAX_DIMENSION")); err == nil && v > 0 {
		svc.maxDim = v
	}
	svc.quality = 80
	if v, err := strconv.ParseFloat(os.Getenv("IMAGE_WEBP_QUALITY"), 32); err == nil && v > 0 && v <= 100 {
		svc.quality = float32(v)
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

func (svc *MediaService) Upload(ctx stdctx.Context, folder string, data []byte, mimeType string) (string, error) {
	if isConvertibleImage(mimeType) {
		optimized, err := optimizeImage(data, svc.maxDim, svc.quality)
		if err != nil {
			log.WithError(err).WithField("mime", mimeType).Warn("Image optimisation failed, storing original")
		} else {
			data, mimeType = optimized, "image/webp"
		}
	}

	objectName := fmt.Sprintf("%s/%s-%s%s", folder, time.Now().UTC().Format("20060102"), uuid.NewString(), extensionFor(mimeType))
	if _, err := svc.minioSvc.UploadFile(ctx, objectName, data, mimeType); err != nil {
		return "", err
	}
	return svc.minioSvc.PublicURL(objectName), nil
}

func (svc *MediaService) Delete(ctx stdctx.Context, url string) error {
	objectName, ok := svc.minioSvc.ObjectName(url)
	if !ok {
		return fmt.Errorf("url %q is not stored in this bucket", url)
	}
	return svc.minioSvc.DeleteFile(ctx, objectName)
}

// GIFs are left alone so animations survive.
func isConvertibleImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

func optimizeImage(data []byte, maxDim int, quality float32) ([]byte, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte) (image.Image, error) {
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/webp":
		return ".webp"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
