package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	corewaiver "github.com/kawanishi0117/agent-company-sub008/internal/core/waiver"
)

// WaiverWriter creates waiver documents.
type WaiverWriter interface {
	Create(ctx context.Context, id, target string) (string, error)
}

// WaiverAdapter validates and scaffolds waiver documents.
type WaiverAdapter struct {
	writer WaiverWriter
	out    io.Writer
	now    func() time.Time
}

// NewWaiverAdapter creates a new WaiverAdapter.
func NewWaiverAdapter(writer WaiverWriter, out io.Writer) *WaiverAdapter {
	return &WaiverAdapter{writer: writer, out: out, now: time.Now}
}

// Validate checks a waiver document and prints its errors and warnings.
func (a *WaiverAdapter) Validate(name, doc string) corewaiver.ValidationResult {
	result := corewaiver.ValidateWaiverContent(doc, a.now())

	if result.Valid {
		fmt.Fprintf(a.out, "%s %s is valid\n", okMark, name)
	} else {
		fmt.Fprintf(a.out, "%s %s is invalid\n", failMark, name)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(a.out, "  %s %s\n", failMark, e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(a.out, "  %s %s\n", warnMark, w)
	}
	if result.Valid {
		usable, reason := corewaiver.IsUsable(result.Fields, a.now())
		if usable {
			fmt.Fprintln(a.out, "  usable for judgment")
		} else {
			fmt.Fprintf(a.out, "  not usable for judgment: %s\n", reason)
		}
	}
	return result
}

// New writes a blank waiver template.
func (a *WaiverAdapter) New(ctx context.Context, id, target string) (string, error) {
	path, err := a.writer.Create(ctx, id, target)
	if err != nil {
		return "", fmt.Errorf("failed to create waiver: %w", err)
	}
	fmt.Fprintf(a.out, "%s Created waiver %s\n", okMark, path)
	fmt.Fprintln(a.out, "  Fill in every section and set Status to approved once signed off.")
	return path, nil
}
