package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"light-chat-engine/llm"
)

// AttachmentProcessor prepares user files for sending and storage. Images
// are downscaled before hashing so the stored blob matches what the
// provider receives.
type AttachmentProcessor struct {
	maxFileSize  int64 // Maximum file size in bytes
	maxImageSize uint  // Maximum image dimension (width or height)
	imageQuality int   // JPEG quality (1-100)
	allowedTypes map[string]bool
}

// NewAttachmentProcessor creates a processor with default settings
func NewAttachmentProcessor() *AttachmentProcessor {
	return &AttachmentProcessor{
		maxFileSize:  10 * 1024 * 1024, // 10MB
		maxImageSize: 1024,             // 1024px
		imageQuality: 85,               // 85% quality
		allowedTypes: map[string]bool{
			// Images
			"image/png":  true,
			"image/jpeg": true,
			"image/jpg":  true,
			"image/gif":  true,
			"image/webp": true,
			// Text files
			"text/plain":       true,
			"text/markdown":    true,
			"text/html":        true,
			"text/css":         true,
			"text/javascript":  true,
			"application/json": true,
			"application/xml":  true,
			// Code files
			"text/x-python": true,
			"text/x-go":     true,
			"text/x-java":   true,
			"text/x-c":      true,
			"text/x-c++":    true,
		},
	}
}

// ProcessFile reads, validates and converts a file into an attachment
func (p *AttachmentProcessor) ProcessFile(filePath string) (*llm.Attachment, error) {
	// Check file exists
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}

	// Check file size
	if fileInfo.Size() > p.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d bytes)", fileInfo.Size(), p.maxFileSize)
	}

	// Detect MIME type
	mimeType := detectMimeType(filePath)

	// Check if file type is allowed
	if !p.allowedTypes[mimeType] {
		return nil, fmt.Errorf("file type not supported: %s", mimeType)
	}

	if strings.HasPrefix(mimeType, "image/") {
		return p.processImage(filePath, mimeType)
	}
	return p.processTextFile(filePath, mimeType)
}

// detectMimeType detects the MIME type of a file by extension with a
// fallback map for code files Go's mime table misses
func detectMimeType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType := mime.TypeByExtension(ext)

	if mimeType != "" {
		// Remove charset if present
		if idx := strings.Index(mimeType, ";"); idx > 0 {
			mimeType = mimeType[:idx]
		}
		return mimeType
	}

	switch ext {
	case ".py":
		return "text/x-python"
	case ".go":
		return "text/x-go"
	case ".java":
		return "text/x-java"
	case ".c":
		return "text/x-c"
	case ".cpp", ".cc", ".cxx":
		return "text/x-c++"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// processImage decodes an image, downscales it if needed and re-encodes it
func (p *AttachmentProcessor) processImage(filePath string, mimeType string) (*llm.Attachment, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Check if resize is needed
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	if width > p.maxImageSize || height > p.maxImageSize {
		// Maintain aspect ratio
		if width > height {
			img = resize.Resize(p.maxImageSize, 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, p.maxImageSize, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg", "jpg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.imageQuality})
	default:
		// Convert other formats to JPEG
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.imageQuality})
		mimeType = "image/jpeg"
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &llm.Attachment{
		Type:     "image",
		MimeType: mimeType,
		Data:     buf.Bytes(),
		Filename: filepath.Base(filePath),
	}, nil
}

// processTextFile reads a text file as an attachment
func (p *AttachmentProcessor) processTextFile(filePath string, mimeType string) (*llm.Attachment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &llm.Attachment{
		Type:     "file",
		MimeType: mimeType,
		Data:     data,
		Filename: filepath.Base(filePath),
	}, nil
}

// ExtensionForAttachment picks a storage extension for an attachment,
// preferring the original filename's extension.
func ExtensionForAttachment(att *llm.Attachment) string {
	if ext := strings.ToLower(filepath.Ext(att.Filename)); ext != "" {
		return ext
	}
	switch att.MimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "text/markdown":
		return ".md"
	case "application/json":
		return ".json"
	default:
		return ".bin"
	}
}
