package hub

// ManifestName is the file listing a model's contents. It is written last, so
// its presence marks a complete materialization.
const ManifestName = "manifest.json"

// Manifest describes the files that make up one model cache entry.
type Manifest struct {
	Model     string         `json:"model"`
	Precision string         `json:"precision"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile is one downloadable file with its integrity digest.
type ManifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}
