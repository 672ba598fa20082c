// Package subflow reflows machine-translated text back into a
// line-synchronized subtitle track.
//
// A subtitle track stores dialogue as discrete timed lines, while a
// translation service works on whole sentences. Subflow extracts dialogue
// entries with their positions, merges them into sentence units that remember
// the inclusive range of lines they came from, translates each sentence, and
// splits the translation back into exactly as many lines before reinjecting
// it. Timing, style and every non-dialogue line are left untouched.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/subflow"
//	    "github.com/ZaguanLabs/subflow/cache"
//	    "github.com/ZaguanLabs/subflow/processor"
//	    "github.com/ZaguanLabs/subflow/provider"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    t := subflow.NewTranslator("ja_JP", p,
//	        subflow.WithCache(cache.NewInMemoryCache(3600)),
//	        subflow.WithProcessor(processor.NewASSProcessor(
//	            processor.WithRenderMode(subflow.ModeDual),
//	        )),
//	    )
//
//	    result, err := t.ProcessASS(context.Background(), track)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Print(result.Content)
//	}
package subflow
