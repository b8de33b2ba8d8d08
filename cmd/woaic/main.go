/*
Copyright © 2024 the woaic authors.
This file is part of woaic.

woaic is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

woaic is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with woaic.  If not, see <http://www.gnu.org/licenses/>.
*/


// Command woaic derives ocean model initial conditions from World Ocean
// Atlas temperature and salinity climatologies.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/woaic/woaicutil"
)

func main() {
	if err := woaicutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
