// Package tokenizer puts trained BPE tokenizers and tiktoken encoders behind
// one interface so they can be compared.
//
// A trained rank table can be loaded into tiktoken-go, which encodes by
// byte-level rank lookup rather than by replaying merge rules. Agreement
// between the two is a cheap end-to-end check of a trained table:
//
//	ours := tokenizer.NewBPE("mine", trained)
//	ref, err := tokenizer.NewTikTokenFromRanks("mine", trained.MergeableRanks(), trained.Pattern())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tokenizer.CrossCheck(ours, ref, texts); err != nil {
//	    log.Fatal(err)
//	}
//
// Compression reports bytes per token for any Tokenizer, including the public
// OpenAI encodings loaded with NewTikToken.
package tokenizer
