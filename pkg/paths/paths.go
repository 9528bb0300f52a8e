package paths

import (
	"os"
	"path/filepath"
)

const appDirName = "codemobile"

// GetConfigDir returns the directory holding config.yaml.
//
// CODEMOBILE_CONFIG_DIR overrides the default. If the home directory cannot
// be determined, it falls back to a directory under the system temporary
// directory.
func GetConfigDir() string {
	if dir := os.Getenv("CODEMOBILE_CONFIG_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), "."+appDirName+"-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", appDirName))
}

// GetDataDir returns the directory for the session database, credentials and logs.
func GetDataDir() string {
	if dir := os.Getenv("CODEMOBILE_DATA_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), "."+appDirName))
	}
	return filepath.Clean(filepath.Join(homeDir, "."+appDirName))
}
