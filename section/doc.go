// Package section defines the low-level binary structures and constants for
// the on-disk index file format.
//
// An index file (one per shard) is an append-only sequence of level frames.
// Each frame is produced by one commit and is never rewritten, except that
// the final block of the previous frame may be logically reabsorbed into
// level 0 before the next commit writes a new frame.
//
//	level_frame := level_header segment_heads segment_bodies
//	level_header := [u16 longest_field_id, only in frame 0]
//	                field_count × 65536 B document_length_codes
//	                u64 indexed_doc_count
//	                u64 positions_sum_normalized
//	segment_heads := S × { u32 segment_block_len, u32 segment_key_count }
//	segment_bodies := concat over k in [0,S) of segment_body_k
//	segment_body_k := key_count × key_head_row, then body bytes
//
// This package provides Parse/Bytes pairs for each fixed-size row (segment
// head, key head) and for the level header, plus the compression-type-
// pointer bit packing shared by every key head.
package section
