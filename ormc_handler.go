//go:build !wasm

package ormbase

// Ormc generates record type registrations and accessors from tagged
// model structs found in model.go/models.go files.
type Ormc struct {
	logFn   func(messages ...any)
	rootDir string
}

// OrmcOption configures NewOrmc.
type OrmcOption func(*Ormc)

// WithRootDir sets the directory Run scans.
func WithRootDir(dir string) OrmcOption { return func(o *Ormc) { o.rootDir = dir } }

// WithOrmcLog sets the log function for warnings.
func WithOrmcLog(fn func(messages ...any)) OrmcOption { return func(o *Ormc) { o.logFn = fn } }

// NewOrmc creates a generator scanning "." unless WithRootDir says otherwise.
func NewOrmc(opts ...OrmcOption) *Ormc {
	o := &Ormc{rootDir: "."}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetLog sets the log function for warnings and informational messages.
// If not set, messages are silently discarded.
func (o *Ormc) SetLog(fn func(messages ...any)) {
	o.logFn = fn
}

// SetRootDir sets the root directory that Run() will scan.
func (o *Ormc) SetRootDir(dir string) {
	o.rootDir = dir
}

// RootDir returns the directory Run scans.
func (o *Ormc) RootDir() string { return o.rootDir }

func (o *Ormc) log(messages ...any) {
	if o.logFn != nil {
		o.logFn(messages...)
	}
}
