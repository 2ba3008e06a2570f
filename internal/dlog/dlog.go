// Package dlog provides the context-carried structured logger used by
// the installer, the publisher and the registry clients to report
// progress. Their entries are tagged with package name and version;
// WithDigest and WithRegistry add digest and registry fields.
package dlog

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

var root = logrus.StandardLogger()

// WithLogger attaches logger to ctx, overriding whatever default or
// inherited logger would otherwise be looked up.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the logger carried by ctx, or a fresh entry off the
// package-level root logger if none was attached.
func From(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(root)
}

// WithPackage returns ctx's logger annotated with the package name and
// version, the pair every install/publish log line is keyed on.
func WithPackage(ctx context.Context, pkgName, version string) *logrus.Entry {
	return From(ctx).WithFields(logrus.Fields{
		"package": pkgName,
		"version": version,
	})
}

// WithRegistry annotates entry with the registry base URI and backend,
// used by registry client log lines.
func WithRegistry(entry *logrus.Entry, registry, backend string) *logrus.Entry {
	return entry.WithFields(logrus.Fields{
		"registry": registry,
		"backend":  backend,
	})
}

// WithDigest annotates entry with a content digest, used once a package
// has been fetched from cache or registry.
func WithDigest(entry *logrus.Entry, digest string) *logrus.Entry {
	return entry.WithField("digest", digest)
}

// SetLevel adjusts the root logger's verbosity; called once from
// cmd/buffrs when the --verbose flag is set.
func SetLevel(level logrus.Level) {
	root.SetLevel(level)
}
