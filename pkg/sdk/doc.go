// Package shopsearch is an embeddable Go client for hybrid product search.
// It wires the same pipeline the shopsearch server runs, in-process: the query is
// embedded densely and sparsely in parallel and one fused query is sent to Qdrant
// or PostgreSQL/pgvector.
//
//	client, err := shopsearch.New(ctx,
//	    shopsearch.WithQdrant("localhost", 6334, ""),
//	    shopsearch.WithCollection("products"),
//	    shopsearch.WithOpenAIDense("http://localhost:8081/v1", "none", "BAAI/bge-small-en-v1.5", 384),
//	    shopsearch.WithTEISparse("http://localhost:8082", "prithivida/Splade_PP_en_v1"),
//	)
//	defer client.Close()
//
//	res, err := client.Search(ctx, shopsearch.Query{
//	    Text:   "red summer dress",
//	    Color:  "red",
//	    Gender: "womens",
//	    Price:  &shopsearch.PriceRange{Min: 20, Max: 80},
//	    Limit:  10,
//	})
package shopsearch
