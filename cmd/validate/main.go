package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [story.json|story.yaml]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &StoryValidator{}
	var err error
	if len(os.Args) == 2 {
		err = validator.validateFile(os.Args[1])
	} else {
		err = validator.validateEmbedded()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Story is valid!")
}
