// Command ime-observer watches the active IME/keyboard-layout status and
// tells a running kanata instance to change its config file or active
// layer to match.
package main

func main() {
	Execute()
}
