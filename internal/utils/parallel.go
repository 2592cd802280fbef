package utils

import "sync"

// Parallel runs the tasks concurrently, waits for all of them and returns
// the first error encountered, if any.
func Parallel(tasks ...func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t func() error) {
			defer wg.Done()
			errs[index] = t()
		}(i, task)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
