// Package files implements the atomic finalizer of the cleaning pipeline.
//
// Output is written to a staging file next to the destination and published
// with one rename once every chunk has been written:
//
//	f := files.NewFinalizer(dest, logger)
//	if err := f.Prepare(); err != nil { // removes a stale staging file
//		return err
//	}
//	// write and sync f.StagingPath()
//	if err != nil {
//		f.Abort() // destination untouched
//		return err
//	}
//	return f.Commit()
//
// The staging file lives in the destination directory so the rename never
// crosses a file system.
package files
