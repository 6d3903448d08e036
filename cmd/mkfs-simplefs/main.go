// mkfs-simplefs formats a disk image for the simplefs metadata engine.
//
// By default the image gets the classic seed file, hello.txt, so a fresh
// mount has something to look up.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/EasonChiu28/simplefs"
	"github.com/EasonChiu28/simplefs/disk"
)

const helloContent = "Hello, SimpleFSRF!\n" +
	"This is a test file in our custom filesystem.\n" +
	"It contains multiple lines of text.\n"

func main() {
	log.SetFlags(0)

	blocks := flag.Uint64("blocks", 12800, "image size in blocks")
	seed := flag.Bool("seed", true, "seed the root directory with hello.txt")
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	image := flag.Arg(0)

	d, err := disk.NewFileDisk(image, *blocks)
	if err != nil {
		log.Fatalf("open %s: %v", image, err)
	}
	defer d.Close()

	var files []simplefs.MkfsFile
	if *seed {
		files = append(files, simplefs.MkfsFile{
			Name: "hello.txt",
			Data: []byte(helloContent),
		})
	}
	if err := simplefs.Mkfs(d, files...); err != nil {
		log.Fatalf("mkfs %s: %v", image, err)
	}
	log.Printf("formatted %s: %d blocks", image, *blocks)
}

func usage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s [-blocks N] [-seed=false] <image>\n", prog)
}
