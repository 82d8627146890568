package storage

import (
	"os"
)

// Exists checks if the given file or folder for a path exists
func Exists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)
	if err != nil || os.IsNotExist(err) {
		return false
	}

	return true
}

// Read reads data from a file
func Read(name string) ([]byte, error) {
	return os.ReadFile(name)
}
