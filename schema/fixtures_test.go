package schema

// person is the reference object used across the package tests.
func person() *Descriptor {
	return Must(NewObject("Person",
		Prop("name", TypeString),
		Prop("age", TypeInteger, Range(0, 120)),
		Prop("email", TypeString).WithFormat(FormatEmail).AsOptional(),
	))
}

func shapes() (circle, square, ping, shape *Descriptor) {
	circle = Must(NewObject("Circle", Prop("radius", TypeNumber, Minimum(0))))
	square = Must(NewObject("Square", Prop("side", TypeNumber, Minimum(0))))
	ping = Must(NewObject("Ping"))
	shape = Must(NewUnion("Shape", circle, square, ping))
	return
}
