package voucher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Renderer writes a voucher document.
type Renderer interface {
	Render(doc Document, w io.Writer) error
}

// Generator renders queued vouchers to the storage directory.
type Generator struct {
	store    Store
	renderer Renderer
	dir      string
	logger   *slog.Logger
}

// NewGenerator constructs a Generator writing under dir.
func NewGenerator(store Store, renderer Renderer, dir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, renderer: renderer, dir: dir, logger: logger}
}

// Generate renders one voucher and records the outcome. Superseded vouchers
// are skipped with ErrSuperseded.
func (g *Generator) Generate(ctx context.Context, voucherID int64) (string, error) {
	doc, err := g.store.LoadDocument(ctx, voucherID)
	if err != nil {
		return "", err
	}
	if doc.Status == StatusSuperseded {
		return "", ErrSuperseded
	}
	path, err := g.write(doc)
	if err != nil {
		if markErr := g.store.MarkFailed(ctx, voucherID, err.Error()); markErr != nil {
			g.logger.Warn("mark voucher failed", slog.Int64("voucher_id", voucherID), slog.Any("error", markErr))
		}
		return "", err
	}
	if err := g.store.MarkGenerated(ctx, voucherID, path); err != nil {
		return "", err
	}
	g.logger.Info("voucher generated", slog.Int64("voucher_id", voucherID),
		slog.Int64("period_id", doc.PeriodID), slog.Int64("employee_id", doc.EmployeeID))
	return path, nil
}

func (g *Generator) write(doc Document) (path string, err error) {
	dir := filepath.Join(g.dir, fmt.Sprintf("period-%d", doc.PeriodID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("voucher: create dir: %w", err)
	}
	path = filepath.Join(dir, fmt.Sprintf("voucher-%d-employee-%d.pdf", doc.VoucherID, doc.EmployeeID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("voucher: create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if err := g.renderer.Render(doc, f); err != nil {
		return "", fmt.Errorf("voucher: render: %w", err)
	}
	return path, nil
}

// IsSkippable reports errors a retry cannot fix.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, ErrVoucherNotFound)
}
