package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

type Uploader interface {
	UploadImage(ctx context.Context, name string, r io.Reader) (domain.Image, error)
}

type Deleter interface {
	DeleteImage(ctx context.Context, id int64) error
}

// Opener resolves a client-local reference to its bytes.
type Opener func(ref string) (io.ReadCloser, error)

// OpenFile treats references as local file paths.
func OpenFile(ref string) (io.ReadCloser, error) { return os.Open(ref) }

var ErrNoUploadDir = errors.New("wizard: no upload directory configured")

// OpenDir resolves references under dir; ".." cannot climb out of it. An
// empty dir opens nothing rather than the filesystem root.
func OpenDir(dir string) Opener {
	if strings.TrimSpace(dir) == "" {
		return func(string) (io.ReadCloser, error) { return nil, ErrNoUploadDir }
	}
	return func(ref string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.Clean("/"+ref)))
	}
}

// Progress receives the percentage of items completed so far.
type Progress func(completed, total, percent int)

// UploadError reports which reference stopped the upload.
type UploadError struct {
	Ref   string
	Index int
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %d (%s): %v", e.Index+1, filepath.Base(e.Ref), e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// UploadSequential uploads refs one at a time in order. The first failure
// stops the run; images uploaded before it are returned with the error so
// the caller can compensate.
func UploadSequential(ctx context.Context, up Uploader, open Opener, refs []string, progress Progress) ([]domain.Image, error) {
	if open == nil {
		open = OpenFile
	}
	total := len(refs)
	out := make([]domain.Image, 0, total)
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return out, &UploadError{Ref: ref, Index: i, Err: err}
		}
		img, err := uploadOne(ctx, up, open, ref)
		if err != nil {
			observability.ObserveUpload("failed")
			return out, &UploadError{Ref: ref, Index: i, Err: err}
		}
		observability.ObserveUpload("ok")
		out = append(out, img)
		if progress != nil {
			progress(i+1, total, (i+1)*100/total)
		}
	}
	return out, nil
}

func uploadOne(ctx context.Context, up Uploader, open Opener, ref string) (domain.Image, error) {
	rc, err := open(ref)
	if err != nil {
		return domain.Image{}, err
	}
	defer rc.Close()
	return up.UploadImage(ctx, filepath.Base(ref), rc)
}

// Compensate deletes already uploaded images after a failed submission.
// It is best effort; the ids it could not delete are returned as orphans.
func Compensate(ctx context.Context, del Deleter, imgs []domain.Image) []int64 {
	var orphans []int64
	for _, img := range imgs {
		if err := del.DeleteImage(ctx, img.ID); err != nil {
			log.Warn().Err(err).Int64("image_id", img.ID).Msg("could not delete uploaded image")
			observability.ObserveUpload("orphaned")
			orphans = append(orphans, img.ID)
			continue
		}
		observability.ObserveUpload("compensated")
	}
	return orphans
}

func ImageIDs(imgs []domain.Image) []int64 {
	ids := make([]int64, len(imgs))
	for i, img := range imgs {
		ids[i] = img.ID
	}
	return ids
}
