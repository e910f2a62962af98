// Package workbook renders lots into the exported xlsx workbook.
//
// The first sheet, "ALL LOT", lists every lot as a header row
// ("LOT<n>", "Count: <count>") followed by one token per row and a blank
// separator row. Every lot holding more than one token also gets its own
// "LOT <n>" sheet with just its tokens.
//
// The package produces bytes only; writing them somewhere is the job of a
// host.Saver.
package workbook
