package flow

import (
	"context"

	"go.uber.org/zap"
)

// FlattenPolicy is the hierarchy flattening mode requested from synthesis.
type FlattenPolicy string

// FlattenRebuild flattens for optimization and rebuilds the hierarchy
// afterwards. It is the only policy the pipeline uses.
const FlattenRebuild FlattenPolicy = "rebuild"

// UtilizationOptions shapes a utilization report.
type UtilizationOptions struct {
	Hierarchical bool
	// Depth is only meaningful for hierarchical reports.
	Depth int
}

// PostRouteUtilizationDepth is the hierarchy depth of util_post_route.rpt.
const PostRouteUtilizationDepth = 2

// Toolchain is one session of the external EDA tool. Design, target and
// constraint state accumulates inside the session across calls; callers
// never read it back except through files the tool writes.
//
// Every method blocks until the tool is done and returns a non-nil error if
// the tool signalled one.
type Toolchain interface {
	IngestDesign(ctx context.Context, files []string, kind SourceKind) error
	SetTarget(ctx context.Context, device string) error
	ApplyConstraints(ctx context.Context, path string) error
	Synthesize(ctx context.Context, top, device string, flatten FlattenPolicy) error
	Optimize(ctx context.Context) error
	Place(ctx context.Context) error
	PhysicalOptimize(ctx context.Context) error
	Route(ctx context.Context) error
	WriteCheckpoint(ctx context.Context, path string) error
	ReportUtilization(ctx context.Context, path string, opts UtilizationOptions) error
	ReportTimingSummary(ctx context.Context, path string) error
	ReportPower(ctx context.Context, path string) error
	WriteBitstream(ctx context.Context, path string) error
	Close() error
}

// OpenToolchain starts a toolchain session whose own logs go to layout.LogsDir().
type OpenToolchain func(ctx context.Context, layout Layout, log *zap.Logger) (Toolchain, error)
