package program

import "os"

func path() (string, error) {
	return os.Executable()
}
