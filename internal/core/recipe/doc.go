// Package recipe describes a packaged native library: its identity, the
// settings and options a build is parameterised by, the dependencies it links
// against and the patches and policy it is built with.
package recipe
