// Package pak reads and writes the packed game-content archive format used
// to ship Unreal pak content (format version 11): an index of named entries,
// each independently compressed and/or encrypted, appended to a single file.
//
// # Reading
//
// Open an archive and fetch entries by exact path:
//
//	r, err := pak.OpenFile("MotorTown-WindowsServer.pak", pak.WithKey(key))
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	data, err := r.Get("MotorTown/Content/DataAsset/Cargos.uasset")
//
// Entries are decrypted and decompressed on demand; repeated Get calls
// against one open Reader re-read from the backing stream.
//
// # Writing
//
// Build a new archive entry by entry, then finalize:
//
//	w := pak.NewWriter(out)
//	err := w.WriteFile("DataAsset/Cargos.uasset", true, data)
//	...
//	err = w.WriteIndex()
//
// Newly authored archives are never encrypted; encryption is a property of
// source archives being read.
//
// # Repackaging
//
// Classify maps a loose filename onto the canonical archive path it should
// occupy, so a repacked mod archive overrides the right original entry. The
// mapping is a best-effort naming-convention heuristic derived from observed
// archive layouts; unknown names fall into the default data-asset directory.
package pak
