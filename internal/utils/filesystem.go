package utils

import "os"

// HasGitRepo reports whether path contains a .git directory.
func HasGitRepo(path string) bool {
	gitPath := path + string(os.PathSeparator) + ".git"
	info, err := os.Stat(gitPath)
	return err == nil && info.IsDir()
}
