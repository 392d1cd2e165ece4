package retriever

import "fmt"

func Degraded(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDegraded, err)
}
