package main

import (
	"fmt"
	"os"

	"github.com/custodian-labs/aegis/cmd/aegis"
)

func main() {
	if err := aegis.BuildRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
