package models

type Order struct {
	_         struct{}     `relmap:"relation:order;module:business"`
	No        int          `relmap:""`
	Finished  bool         `relmap:""`
	Items     []*OrderItem `relmap:"vcol:order_fkey;vattr:order"`
	Employees []*Employee  `relmap:"column:order;link:employee_orders;vcol:employee;vattr:orders"`
	scratch   string
}

type Employee struct {
	_       struct{} `relmap:"relation:employee"`
	Name    string   `relmap:""`
	Surname string   `relmap:""`
	Phone   string   `relmap:""`
	Orders  []*Order `relmap:"column:employee;link:employee_orders;vcol:order;vattr:employees"`
}

type Boss struct {
	Employee
	_          struct{}    `relmap:"relation:boss"`
	Department *Department `relmap:"column:dep_fkey;vattr:boss"`
}

type Department struct {
	_    struct{} `relmap:"relation:department"`
	Boss *Boss    `relmap:"column:boss_fkey;vattr:department"`
}

type OrderItem struct {
	_        struct{} `relmap:"relation:order_item"`
	Order    *Order   `relmap:"column:order_fkey;vattr:items"`
	Pos      int      `relmap:""`
	Quantity float64  `relmap:""`
	Note     string   `relmap:"-"`
}

// Totals is not mapped.
type Totals struct {
	Sum float64
}
