/*
Package timex parses TIMEX date/time expressions and classifies them.

A TIMEX expression is the normalized form produced by date recognizers:
"2024-05-03" is a fully resolved calendar date, "XXXX-WXX-5" is "a Friday",
"XXXX-05-03" is "the 3rd of May of some year". The booking flow only accepts
definite expressions and delegates everything else to a date resolution
sub-flow.

	ambiguous := timex.IsAmbiguous("XXXX-WXX-5") // true
	ambiguous = timex.IsAmbiguous("2024-05-03")  // false
	ambiguous = timex.IsAmbiguous("next friday") // true, not a TIMEX
*/
package timex
