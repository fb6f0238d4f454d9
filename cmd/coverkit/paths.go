package main

import "tools.zach/dev/coverkit/internal/paths"

// DataPaths aliases [paths.DataDir] so command code can use the path helpers
// unqualified.
type DataPaths = paths.DataDir
