// Package store keeps the artifacts produced by platform jobs until the
// aggregation stage collects them. Two backends exist: a directory on the
// local filesystem for single-host runs and Redis for CI runners that share
// nothing but the network.
package store
