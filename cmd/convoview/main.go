// convoview is a command-line viewer over AI coding assistant
// conversation logs, normalizing several vendor storage formats into one
// canonical transcript model.
package main

func main() {
	Execute()
}
