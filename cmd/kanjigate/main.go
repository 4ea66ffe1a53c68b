// Command kanjigate keeps an Anki collection's kanji curriculum in
// prerequisite order: components before characters, characters before
// vocabulary.
package main

func main() {
	Execute()
}
