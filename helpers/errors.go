package helpers

import (
	"strings"
	"sync"

	"github.com/juju/errors"
)

// FoldErrors merges non-nil errors into one, nil when there is nothing to report.
func FoldErrors(errs []error) error {
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.New(strings.Join(ss, "\n"))
}

// WrapErrChan runs fun on the current goroutine, sends its error to ch
// and releases wg. Use with FoldErrChan to gather parallel init errors.
func WrapErrChan(wg *sync.WaitGroup, ch chan<- error, fun func() error) {
	defer wg.Done()
	ch <- fun()
}

// FoldErrChan drains a closed channel into one folded error.
func FoldErrChan(ch <-chan error) error {
	errs := make([]error, 0, 8)
	for e := range ch {
		errs = append(errs, e)
	}
	return FoldErrors(errs)
}
