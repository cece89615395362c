package profile

import (
	"io"
	"os"
)

// std is the process-wide group behind the package-level functions. It exists
// from Begin to End.
var std *Group

// Begin creates the process group with default options and begins it.
func Begin() error {
	return BeginWith(Options{})
}

// BeginWith creates the process group with opts and begins it. A group that
// was begun and not ended yet makes it return ErrAlreadyBegun.
func BeginWith(opts Options) error {
	if std != nil {
		return ErrAlreadyBegun
	}
	g := New(opts)
	if err := g.Begin(); err != nil {
		return err
	}
	std = g
	return nil
}

// Start enables the process group and takes its baseline snapshot.
func Start() error {
	if std == nil {
		return nil
	}
	return std.Start()
}

// Snap takes an intermediate snapshot of the process group.
func Snap() error {
	if std == nil {
		return nil
	}
	return std.Snap()
}

// Stop takes the final snapshot of the process group and disables it.
func Stop() error {
	if std == nil {
		return nil
	}
	return std.Stop()
}

// Report writes the process group results to stdout in plain format.
func Report() error {
	return ReportTo(os.Stdout, FormatPlain)
}

// ReportTo writes the process group results to w.
func ReportTo(w io.Writer, f Format) error {
	if std == nil {
		return nil
	}
	return std.Report(w, f)
}

// End closes the process group. A new Begin is needed to measure again.
func End() error {
	if std == nil {
		return nil
	}
	err := std.End()
	std = nil
	return err
}
