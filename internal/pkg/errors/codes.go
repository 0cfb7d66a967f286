package errors

// File error codes.
const (
	CodeFileListFailed  = "FILE_LIST_FAILED"
	CodeFileReadFailed  = "FILE_READ_FAILED"
	CodeFileWriteFailed = "FILE_WRITE_FAILED"
)

// Document error codes.
const (
	CodeDocumentParseFailed = "DOCUMENT_PARSE_FAILED"
)

// Report error codes.
const (
	CodeReportWriteFailed = "REPORT_WRITE_FAILED"
)

// Configuration error codes.
const (
	CodeConfigInvalid = "CONFIG_INVALID"
)

// Convenience constructors using predefined codes.

// FileListFailed reports that the target directory could not be enumerated.
func FileListFailed(pattern string, err error) *AppError {
	return Wrap(err, CodeFileListFailed, "list localization files").WithPath(pattern)
}

// FileReadFailed reports that a localization file could not be read.
func FileReadFailed(path string, err error) *AppError {
	return Wrap(err, CodeFileReadFailed, "read localization file").WithPath(path)
}

// FileWriteFailed reports that a patched file could not be written back.
func FileWriteFailed(path string, err error) *AppError {
	return Wrap(err, CodeFileWriteFailed, "write localization file").WithPath(path)
}

// DocumentParseFailed reports a file that is not valid JSON.
func DocumentParseFailed(path string, err error) *AppError {
	return Wrap(err, CodeDocumentParseFailed, "parse localization file").WithPath(path)
}

// ReportWriteFailed reports that the run report could not be written.
func ReportWriteFailed(path string, err error) *AppError {
	return Wrap(err, CodeReportWriteFailed, "write run report").WithPath(path)
}

// ConfigInvalid reports a configuration value that cannot be used.
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
