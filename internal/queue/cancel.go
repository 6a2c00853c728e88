package queue

import "github.com/riverqueue/river"

// Cancel wraps err so the job is cancelled permanently instead of retried.
// Handlers use it for the failure modes the pipeline declares fatal, like a
// missing photo row or a missing file at job start.
func Cancel(err error) error {
	return river.JobCancel(err)
}
