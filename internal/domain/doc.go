// Package domain models tent detections, H3 hex cells, and facility counts.
//
// # Data Sources
//
// Tent detections and facility datasets arrive as CSV exports from field
// collection tools and open-data portals. Column names vary by source, so the
// latitude and longitude columns are resolved from alias lists (see
// [DetectionAliases] and [FacilityAliases]). Matching is case-insensitive and
// follows the alias order: the first alias present in the header wins.
//
// # Coordinate Conventions
//
// Values are WGS-84 decimal degrees. Field exports are noisy:
//
//	"32.70°"      →  32.70   (non-numeric characters are stripped)
//	" -117.16 "   → -117.16
//	"N/A", ""     →  missing (row dropped, never treated as zero)
//
// Some exports put longitude in the latitude column. When the median absolute
// latitude exceeds 90 while the median absolute longitude is at most 90, the
// two columns are swapped before any range filtering. The heuristic cannot
// catch swapped columns when both medians are under 90.
//
// Rows outside lat [-90, 90] / lon [-180, 180] are dropped and counted in
// [NormalizeStats].
//
// # Hex Cells
//
// Cells are H3 indexes rendered as lowercase hex strings (e.g. "8a29a4d3259ffff").
// The resolution is fixed per pipeline run; every stage of a run must use the
// same value or counts will not line up with focused cells.
//
// A cell is "focused" when it contains a detection (tent_status=1) or lies
// within the configured ring distance of one (tent_status=0). A cell that
// contains a detection keeps tent_status=1 even when it is also reached by a
// neighbor's ring.
//
// # Facility Counts
//
// Each [FacilityCategory] contributes one "<prefix>_count" column. A count of 0
// means no facility of that category falls in the cell, including when the
// category has no dataset at all.
package domain
