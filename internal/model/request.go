package model

type PathRequest struct {
	Path string `json:"path"`
}

type RenameFileRequest struct {
	Path    string `json:"path"`
	NewName string `json:"newName"`
}

type RenameFolderRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}
