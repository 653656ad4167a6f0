package models

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// Progress reports download progress. Total is -1 when the server did not
// send a Content-Length.
type Progress struct {
	Name       string
	Downloaded int64
	Total      int64
	Done       bool
}

// Ensure makes sure the model behind url is installed and returns its path.
// Already-installed models return immediately. The progress channel may be
// nil; sends never block.
func (s *Store) Ensure(ctx context.Context, url string, progress chan<- Progress) (string, error) {
	name := NameFromURL(url)
	dest := s.Path(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsInstalled(name) {
		notify(progress, Progress{Name: name, Done: true})
		return dest, nil
	}

	slog.Info("downloading model, this might take a while", "name", name, "url", url)

	archive, err := s.download(ctx, url, name, progress)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	if err := s.extract(archive, url, name); err != nil {
		return "", fmt.Errorf("extracting model archive: %w", err)
	}

	slog.Info("model installed", "name", name, "path", dest)
	notify(progress, Progress{Name: name, Done: true})
	return dest, nil
}

// download fetches url into a temp file inside the store and returns its path.
func (s *Store) download(ctx context.Context, url, name string, progress chan<- Progress) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(s.dir, name+"-*.download")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, 32*1024)

	for {
		select {
		case <-ctx.Done():
			tmp.Close()
			os.Remove(tmpPath)
			return "", ctx.Err()
		default:
		}

		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				tmp.Close()
				os.Remove(tmpPath)
				return "", werr
			}
			downloaded += int64(n)
			notify(progress, Progress{Name: name, Downloaded: downloaded, Total: total})
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return "", rerr
		}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// extract unpacks the archive into the store and renames the archive's
// top-level directory to the expected model name.
func (s *Store) extract(archive, url, name string) error {
	staging, err := os.MkdirTemp(s.dir, name+"-*.extract")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	switch {
	case strings.HasSuffix(url, ".zip"):
		err = unzip(archive, staging)
	case strings.HasSuffix(url, ".tar.gz"), strings.HasSuffix(url, ".tgz"):
		err = untar(archive, staging, gzipReader)
	case strings.HasSuffix(url, ".tar.xz"):
		err = untar(archive, staging, xzReader)
	case strings.HasSuffix(url, ".tar"):
		err = untar(archive, staging, func(r io.Reader) (io.Reader, error) { return r, nil })
	default:
		return fmt.Errorf("unsupported archive format: %s", url)
	}
	if err != nil {
		return err
	}

	root, err := topLevelDir(staging)
	if err != nil {
		return err
	}
	return os.Rename(root, s.Path(name))
}

// topLevelDir returns the single directory an archive unpacked into, or the
// staging dir itself when files sit at the top level.
func topLevelDir(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(staging, entries[0].Name()), nil
	}
	return staging, nil
}

func gzipReader(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func xzReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func unzip(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath, err := securePath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(fpath, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func untar(src, destDir string, decompress func(io.Reader) (io.Reader, error)) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	dr, err := decompress(f)
	if err != nil {
		return err
	}

	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fpath, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
				return err
			}
			if err := writeFile(fpath, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		default:
			// Symlinks and special files don't occur in model archives.
		}
	}
}

// securePath joins an archive entry name onto destDir, rejecting entries
// that would escape it. Entries naming the archive root itself ("." or
// "./", common in tarballs packed from inside a directory) resolve to
// destDir.
func securePath(destDir, name string) (string, error) {
	fpath := filepath.Join(destDir, name)
	if fpath == filepath.Clean(destDir) {
		return fpath, nil
	}
	if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes extraction dir: %s", name)
	}
	return fpath, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// notify sends a progress update without blocking.
func notify(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
