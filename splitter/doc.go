// Package splitter cuts document text into token-bounded chunks for embedding.
//
// TokenSplitter walks the token stream in windows of ChunkSize tokens. Each
// window is decoded and, when it is long enough, shortened to end at its last
// sentence terminator or newline, so chunks tend to hold whole sentences.
// Chunks with fewer than MinChunkLengthToEmbed tokens are dropped, and no
// more than MaxNumChunks chunks are produced.
//
// Tokens are counted by an Encoder. TiktokenEncoder uses the cl100k_base
// vocabulary shared by OpenAI's current models; RuneEncoder counts code points
// and works without a vocabulary download.
package splitter
