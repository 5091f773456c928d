package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Form field names carrying files.
const (
	FieldAPK  = "apk"
	FieldIcon = "icon"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrUnexpectedFile  = errors.New("unexpected file field")
	ErrTooManyFiles    = errors.New("too many files")
)

var allowedIconTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Stored describes a persisted upload.
type Stored struct {
	Name         string `json:"stored_name"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
}

// Files holds the validated files of one mutation request.
type Files struct {
	APK  *multipart.FileHeader
	Icon *multipart.FileHeader
}

// Intake validates uploads and persists accepted ones into a BlobStore.
type Intake struct {
	blobs   BlobStore
	maxSize int64
	now     func() time.Time
}

func NewIntake(blobs BlobStore, maxSize int64) *Intake {
	return &Intake{blobs: blobs, maxSize: maxSize, now: time.Now}
}

// Collect picks the package and icon out of a multipart form and validates
// both before anything is written. At most one file per field is accepted and
// files in any other field are rejected.
func (in *Intake) Collect(files map[string][]*multipart.FileHeader) (Files, error) {
	var out Files
	for field, headers := range files {
		if len(headers) == 0 {
			continue
		}
		if len(headers) > 1 {
			return Files{}, fmt.Errorf("%w: only one %q file is allowed", ErrTooManyFiles, field)
		}
		switch field {
		case FieldAPK:
			out.APK = headers[0]
		case FieldIcon:
			out.Icon = headers[0]
		default:
			return Files{}, fmt.Errorf("%w: %q", ErrUnexpectedFile, field)
		}
	}

	if out.APK != nil {
		if err := in.Validate(KindAPK, out.APK); err != nil {
			return Files{}, err
		}
	}
	if out.Icon != nil {
		if err := in.Validate(KindIcon, out.Icon); err != nil {
			return Files{}, err
		}
	}
	return out, nil
}

// Validate checks type and size of a single upload.
func (in *Intake) Validate(kind Kind, fh *multipart.FileHeader) error {
	switch kind {
	case KindAPK:
		if strings.ToLower(filepath.Ext(fh.Filename)) != ".apk" {
			return fmt.Errorf("%w: only APK files are allowed", ErrUnsupportedType)
		}
	case KindIcon:
		if !allowedIconTypes[iconType(fh)] {
			return fmt.Errorf("%w: only JPEG, PNG, GIF or WEBP images are allowed", ErrUnsupportedType)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedFile, kind)
	}
	if fh.Size > in.maxSize {
		return fmt.Errorf("%w: maximum size is %dMB", ErrTooLarge, in.maxSize/(1024*1024))
	}
	return nil
}

// iconType trusts the declared content type and sniffs the bytes only when
// the client sent none.
func iconType(fh *multipart.FileHeader) string {
	declared := fh.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return ""
		}
		return strings.ToLower(mediaType)
	}

	f, err := fh.Open()
	if err != nil {
		return ""
	}
	defer f.Close()
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(mt.String())
	return mediaType
}

// Store validates fh and writes it under a freshly generated name.
func (in *Intake) Store(ctx context.Context, kind Kind, fh *multipart.FileHeader) (*Stored, error) {
	if err := in.Validate(kind, fh); err != nil {
		return nil, err
	}

	name, err := in.uniqueName(ctx, kind, fh.Filename)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	n, err := in.blobs.Put(ctx, kind, name, src)
	if err != nil {
		return nil, err
	}
	return &Stored{Name: name, OriginalName: fh.Filename, Size: n}, nil
}

// StoreFiles persists a validated Files set.
func (in *Intake) StoreFiles(ctx context.Context, files Files) (apk, icon *Stored, err error) {
	if files.Icon != nil {
		if icon, err = in.Store(ctx, KindIcon, files.Icon); err != nil {
			return nil, nil, err
		}
	}
	if files.APK != nil {
		if apk, err = in.Store(ctx, KindAPK, files.APK); err != nil {
			return nil, nil, err
		}
	}
	return apk, icon, nil
}

func (in *Intake) uniqueName(ctx context.Context, kind Kind, original string) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		name := GenerateName(original, in.now())
		exists, err := in.blobs.Exists(ctx, kind, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique file name", ErrStorageUnavailable)
}

// GenerateName returns "<unix-ms>-<random><ext>" where ext comes from the
// sanitised original name.
func GenerateName(original string, now time.Time) string {
	clean := unsafeChars.ReplaceAllString(filepath.Base(original), "_")
	ext := strings.ToLower(filepath.Ext(clean))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, ext)
}
