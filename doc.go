/*
Package apicall lets tests call server-side actions as if they were local
typed functions. Each call is turned into a real HTTP request against a
running server and the response is turned back into the declared result.

Describe the server side with a table of actions. An action belongs to a
controller, has an HTTP method, an optional route template and a list of
declared parameters:

	accounts := &apicall.Controller{Name: "AccountsController", Route: "api/[controller]"}

	func GetActions() []*apicall.Action {
		return []*apicall.Action{
			{
				Controller: accounts,
				Name:       "Get",
				Method:     http.MethodGet,
				Route:      "{id:guid}",
				Params:     []apicall.Param{{Name: "id"}},
				Returns: apicall.ReturnsOneOf(
					apicall.OkOf[Account](),
					apicall.NotFoundOf[string](),
				),
			},
			{
				Controller: accounts,
				Name:       "Upload",
				Method:     http.MethodPost,
				Route:      "[action]",
				Params:     []apicall.Param{{Name: "file"}, {Name: "comment"}},
				Returns:    apicall.ReturnsPrimitive[uuid.UUID](),
			},
		}
	}

Template tokens [controller] and [action] are replaced by the controller
name without the "Controller" suffix and by the action name. Placeholders
may carry constraints ({id:guid}, {n:int}); constraints are ignored when
the route is built. An action route starting with "/" ignores the
controller route.

Every argument is bound to one part of the request. Explicit sources come
from Param.From for arguments and from struct tags for fields:

	type RenameRequest struct {
		// Route placeholder {ExternalAccountId}.
		ExternalAccountId string `url:"ExternalAccountId"`

		// Query parameter.
		ValueStr string `query:"ValueStr"`

		// Header.
		Token string `header:"X-Token"`

		// Form field (multipart body).
		Note string `form:"note"`
	}

A struct field tagged `body:""` makes the whole struct the request body.
Without a tag, simple values (numbers, strings, time.Time, uuid.UUID,
decimal.Decimal, encoding.TextMarshaler) and slices of them go to the
query string, *File values go to a multipart form and other structs are
expanded field by field. Nil values are never sent.

Create a client and call actions by "Resource.Action" name:

	client := apicall.NewClient(GetActions(), server.URL)
	res, err := apicall.Invoke[apicall.Results](ctx, client, "Accounts.Get", id)
	if err != nil {
		...
	}
	if ok, has := apicall.ResultAs[apicall.Ok[Account]](res); has {
		...
	}

Non-2xx responses are returned as *StatusError unless the declared shape is
a union listing that exact status. The client keeps cookies set by the
server and sends them back in later calls, so one client should be used
per logical session and calls sharing it should not race.
*/
package apicall
