package media

import (
	"fmt"
	"path"
	"strings"
)

// SupportedImageExtensions maps image file extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".dng":  "image/x-adobe-dng",
}

// SupportedVideoExtensions maps video file extensions to MIME types.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4v":  "video/x-m4v",
}

// InferMediaType returns the item's media type. An explicit media_type wins,
// then the MIME-type prefix; anything else is treated as an image.
func InferMediaType(it Item) string {
	if mt := strings.ToLower(strings.TrimSpace(it.MediaType)); mt != "" {
		return mt
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(it.MIMEType)), "video/") {
		return TypeVideo
	}
	return TypeImage
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(ext)

	if mimeType, ok := SupportedImageExtensions[ext]; ok {
		return mimeType, nil
	}
	if mimeType, ok := SupportedVideoExtensions[ext]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// MIMETypeForItem returns the item's MIME type, falling back to its filename
// extension and finally to application/octet-stream.
func MIMETypeForItem(it Item) string {
	if it.MIMEType != "" {
		return it.MIMEType
	}
	if mt, err := GetMIMEType(path.Ext(it.Filename)); err == nil {
		return mt
	}
	return "application/octet-stream"
}
