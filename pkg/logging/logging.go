// Package logging builds the structured logger handed to pipeline actions.
package logging

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/klog/v2"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

type Options struct {
	// Format is either "console" or "json".
	Format string
	// Verbose enables V(1) messages.
	Verbose bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// New returns a logr.Logger backed by zap.
func New(o Options) logr.Logger {
	w := o.Writer
	if w == nil {
		w = os.Stderr
	}

	level := zapcore.InfoLevel
	if o.Verbose {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	switch o.Format {
	case FormatJSON:
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeCaller = nil
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zapr.NewLogger(zap.New(core))
}

// RedirectKlog sends client-go's klog output through l.
func RedirectKlog(l logr.Logger) {
	klog.SetLogger(l.WithName("client-go"))
}
