// Package source implements the chunk reader: it opens a delimited text file
// (or the first sheet of an .xlsx workbook) and yields ordered batches of rows
// no larger than a configured chunk size.
//
// The header is read once from the first record. Column order in every chunk
// follows the header; an allow-list only selects columns, it never reorders
// them. Records whose field count disagrees with the header are malformed and
// are either skipped and counted or abort the read, depending on the policy.
//
// Only one chunk is held in memory at a time:
//
//	r, err := source.Open(path, source.Options{ChunkSize: 50000})
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	for {
//		chunk, err := r.Next(ctx)
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		// use chunk.Rows
//	}
package source
