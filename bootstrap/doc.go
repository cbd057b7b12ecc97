// Package bootstrap runs flowgraph binaries with a uniform lifecycle.
//
// An App validates its typed configuration, sets up logging, starts the
// registered components, and shuts them down in reverse order on SIGINT,
// SIGTERM or context cancellation. Run serves until told to stop; RunTask
// runs a finite command such as a batch compile under the same lifecycle.
package bootstrap
