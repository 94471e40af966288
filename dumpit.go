// Package dumpit discovers the pages of a single website and extracts each
// page into an ordered sequence of typed content blocks (headings,
// paragraphs, lists, images, forms), downloading image assets once per
// content hash.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., http/, goquery/, sqlite/).
package dumpit
