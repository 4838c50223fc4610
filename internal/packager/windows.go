package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/papercraft-labs/pcrelease/internal/fsutil"
	"github.com/papercraft-labs/pcrelease/internal/release"
	"go.uber.org/zap"
)

// Zip stores the executable in a zip archive under its platform file name.
type Zip struct {
	platform release.Platform
	logger   *zap.Logger
}

func (z *Zip) Package(ctx context.Context, in Input) (string, error) {
	return produce(in, z.platform, func(partial string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		z.logger.Info("zipping executable", zap.String("executable", in.Executable))
		return zipFile(partial, in.Executable, z.platform.ExecutableName(in.App.Binary))
	})
}

func zipFile(dst, src, member string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening executable: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = member
	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("compressing executable: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Close()
}

// Exe publishes the executable itself.
type Exe struct {
	platform release.Platform
	logger   *zap.Logger
}

func (e *Exe) Package(ctx context.Context, in Input) (string, error) {
	return produce(in, e.platform, func(partial string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.logger.Info("copying executable", zap.String("executable", in.Executable))
		if err := fsutil.CopyFile(in.Executable, partial, 0755); err != nil {
			return fmt.Errorf("copying executable: %w", err)
		}
		return nil
	})
}
