// Package reader extracts plain-text documents from files.
//
// Plain text, Markdown, PDF, HTML and CSV go through langchaingo's document
// loaders. Word documents (.docx) are read by Docx, which pulls paragraph text
// straight out of the OOXML archive.
//
// A directory is walked recursively and every supported file beneath it is
// loaded. Each resulting document records its file under the "source"
// metadata key.
package reader
