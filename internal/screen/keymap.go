package screen

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeyScan      = "s"
	KeySpace     = " "
	KeyEnter     = "enter"
	KeyFlash     = "f"
	KeyFlashUp   = "F"
)
