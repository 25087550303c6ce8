package storage

import "github.com/spf13/afero"

func readFile(fs afero.Fs, path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func writeFile(fs afero.Fs, path string, data []byte) error {
	return afero.WriteFile(fs, path, data, 0o644)
}
