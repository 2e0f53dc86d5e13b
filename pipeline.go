package nesimg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/nesimg/quantize"
)

var sourceExtensions = map[string]bool{
	".png":  true,
	".gif":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// isSource reports whether file looks like a source image and not one of
// our own exports.
func isSource(file string) bool {
	if strings.HasSuffix(file, pngSuffix) {
		return false
	}
	return sourceExtensions[strings.ToLower(filepath.Ext(file))]
}

func (c *Converter) findImages(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || !isSource(file) {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (c *Converter) imageWorker(ctx context.Context, in <-chan string, crop bool) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			src, err := LoadSource(file, crop)
			if err != nil {
				errc <- err
				return
			}

			if c.db != nil {
				e, err := c.db.FindByHash(src.Hash)
				if err != nil {
					errc <- err
					return
				}
				if e != nil {
					c.logger.Printf("Skipping \"%s\", already converted as \"%s\"\n", file, e.Path)
					continue
				}
			}

			if _, err := c.convertSource(ctx, src); err != nil {
				// Unsuitable images don't stop the scan
				var qe *quantize.Error
				if errors.As(err, &qe) && qe.Stage == quantize.StageValidate {
					c.logger.Printf("Skipping \"%s\", %v\n", file, qe.Err)
					continue
				}
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan converts every image found under path using the given number of
// workers. The first error stops the scan.
func (c *Converter) Scan(ctx context.Context, path string, workers int, crop bool) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := c.findImages(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		errc, err := c.imageWorker(ctx, files, crop)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
