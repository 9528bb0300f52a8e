package tools

import "sync"

const (
	ToolNameReadFile      = "read_file"
	ToolNameWriteFile     = "write_file"
	ToolNameEditFile      = "edit_file"
	ToolNameDeleteFile    = "delete_file"
	ToolNameListDirectory = "list_directory"
	ToolNameRunCommand    = "run_command"
	ToolNameSearchFiles   = "search_files"
)

type ReadFileArgs struct {
	Path      string `json:"path" jsonschema:"Path of the file relative to the project root"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"First line to read, 1-based. Required for files above the size limit"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"Last line to read, inclusive"`
}

type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"Path of the file relative to the project root"`
	Content string `json:"content" jsonschema:"Full new content of the file"`
}

type EditFileArgs struct {
	Path    string `json:"path" jsonschema:"Path of the file relative to the project root"`
	OldText string `json:"old_text" jsonschema:"Exact text to replace. Must occur exactly once in the file"`
	NewText string `json:"new_text" jsonschema:"Replacement text"`
}

type DeleteFileArgs struct {
	Path string `json:"path" jsonschema:"Path of the file or empty directory to delete"`
}

type ListDirectoryArgs struct {
	Path      string `json:"path,omitempty" jsonschema:"Directory relative to the project root. Defaults to the root"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"List the whole tree below the directory"`
}

type RunCommandArgs struct {
	Command string `json:"command" jsonschema:"Shell command to run"`
	Cwd     string `json:"cwd,omitempty" jsonschema:"Working directory relative to the project root"`
}

type SearchFilesArgs struct {
	Pattern string `json:"pattern" jsonschema:"Text or regular expression to look for"`
	Path    string `json:"path,omitempty" jsonschema:"Directory to search in. Defaults to the project root"`
	Regex   bool   `json:"regex,omitempty" jsonschema:"Treat pattern as a regular expression"`
	Include string `json:"include,omitempty" jsonschema:"Glob filter on file paths, e.g. **/*.go"`
}

// Catalog returns the fixed set of tools offered to the model in build mode.
var Catalog = sync.OnceValue(func() []Tool {
	return []Tool{
		{
			Name:        ToolNameReadFile,
			Description: "Read a text file from the project. Use start_line and end_line to read part of a large file.",
			Parameters:  mustSchema[ReadFileArgs](),
		},
		{
			Name:        ToolNameWriteFile,
			Description: "Create a file or overwrite it with new content. Parent directories are created as needed.",
			Parameters:  mustSchema[WriteFileArgs](),
		},
		{
			Name:        ToolNameEditFile,
			Description: "Replace one exact occurrence of old_text with new_text. Fails if old_text is missing or ambiguous.",
			Parameters:  mustSchema[EditFileArgs](),
		},
		{
			Name:        ToolNameDeleteFile,
			Description: "Delete a file or an empty directory.",
			Parameters:  mustSchema[DeleteFileArgs](),
		},
		{
			Name:        ToolNameListDirectory,
			Description: "List the entries of a directory, optionally as a recursive tree.",
			Parameters:  mustSchema[ListDirectoryArgs](),
		},
		{
			Name:        ToolNameRunCommand,
			Description: "Run a shell command in the project directory and return its combined output and exit code.",
			Parameters:  mustSchema[RunCommandArgs](),
		},
		{
			Name:        ToolNameSearchFiles,
			Description: "Search file contents for a literal string or regular expression. Skips hidden and dependency directories.",
			Parameters:  mustSchema[SearchFilesArgs](),
		},
	}
})

// Lookup finds a catalog tool by name.
func Lookup(name string) (Tool, bool) {
	for _, t := range Catalog() {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
