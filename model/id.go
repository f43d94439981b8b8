package model

import "fmt"

// formatChunkID builds the chunk identifier convention from spec.md §3:
// documentId + "_p" + pageNum + "_c" + index.
func formatChunkID(documentID string, pageNum, chunkIndex int) string {
	return fmt.Sprintf("%s_p%d_c%d", documentID, pageNum, chunkIndex)
}
