// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/proteobench/probench/internal/flatxml"
)

var debugFlat *string // Dump flattened parameter pairs for a given path prefix

func init() {
	debugFlat = flag.String("debug", "",
		"Print flattened parameter pairs whose path starts with `prefix` (use * for all)")
}

func debugDumpFlatRecord(filename string) {
	if *debugFlat == `` {
		return
	}
	node, err := flatxml.ParseFile(filename)
	if err != nil {
		fmt.Printf("debug: parse %s: %v\n", filename, err)
		return
	}
	pairs, err := flatxml.Flatten(node)
	if err != nil {
		fmt.Printf("debug: flatten %s: %v\n", filename, err)
		return
	}
	for _, p := range pairs {
		path := strings.Join(p.Path, "/")
		if *debugFlat == `*` || strings.HasPrefix(path, *debugFlat) {
			fmt.Printf("%s=%q\n", path, p.Value)
		}
	}
}
