package main

import (
	"testing"

	_ "github.com/odyssey-erp/pos-backoffice/internal/testing/guard"
)

func TestMainSkipsWorkerInTestMode(t *testing.T) {
	main()
}
