// Package blobstore reaches source and result blobs through one narrow
// interface.
//
// Locations are plain strings: local paths and file:// URLs are served from
// the local filesystem with atomic writes, http:// and https:// URLs are served
// by an object gateway that answers HEAD, GET, and PUT. Router picks the
// backend per location so a single run can read sources from one store and
// write results to another.
package blobstore
