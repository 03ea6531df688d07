package tripflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/tripflow"
	"github.com/aretw0/tripflow/pkg/domain"
)

// ExampleNew runs a booking where most details were extracted up front.
func ExampleNew() {
	ctx := context.Background()
	engine := tripflow.New()

	reply, err := engine.Start(ctx, "demo", domain.BookingSession{
		Origin:      "paris",
		Destination: "berlin",
		StartDate:   "2024-05-03",
		EndDate:     "2024-05-10",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Prompt.Text)

	reply, err = engine.Turn(ctx, "demo", "500")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Prompt.InputType)

	reply, err = engine.Turn(ctx, "demo", "yes")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Status, reply.Booking.Origin, reply.Booking.Budget)

	// Output:
	// How much do you want to spend on this trip?
	// confirm
	// completed Paris 500
}
