// Package identification decides what a video is. It generates title
// candidates from OCR fragments and the filename, resolves them against the
// metadata provider, and fuses provider matches with actor and studio
// signals into a movie, show, or unknown decision. Unknown is a valid
// outcome, chosen whenever the evidence is weak or ambiguous.
package identification
