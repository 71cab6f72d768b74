// Package exporter writes cleaned chunks to CSV.
//
// StreamWriter is the chunk writer of the pipeline. It writes the header
// once and then appends chunks in arrival order through a buffered
// encoding/csv writer:
//
//	w, err := exporter.CreateStreamWriter(stagingPath)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	if err := w.WriteHeader(header); err != nil {
//		return err
//	}
//	for each chunk {
//		if err := w.WriteChunk(rows); err != nil {
//			return err
//		}
//	}
//	return w.Commit()
//
// Commit syncs the file to disk so that a following rename publishes
// complete content. Report writes JSON run reports next to the data.
package exporter
