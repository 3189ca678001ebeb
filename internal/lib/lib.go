// Package lib holds supporting code that is not part of the request path.
// Its job subpackage runs ledger maintenance on the asynq worker.
package lib
